package capture

import "fmt"

// Kind classifies an acquisition failure so the operator message can be
// actionable ("no camera" vs "permission denied" vs "in use").
type Kind string

const (
	KindNoSource         Kind = "no_source"
	KindPermissionDenied Kind = "permission_denied"
	KindSourceBusy       Kind = "source_busy"
	KindUnsatisfiable    Kind = "unsatisfiable"
	KindTimeout          Kind = "timeout"
	KindUnknown          Kind = "unknown"
)

// AcquisitionError is the normalized form of every capture-collaborator
// failure. It never crosses the session boundary as a panic; manual entry
// stays available regardless of the kind.
type AcquisitionError struct {
	Kind   Kind
	Reason string
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed (%s): %s", e.Kind, e.Reason)
}

// OperatorMessage renders the failure as guidance for the person at the
// scanner, always pointing at manual entry as the fallback.
func (e *AcquisitionError) OperatorMessage() string {
	switch e.Kind {
	case KindNoSource:
		return "No camera detected on this device. Enter the code manually."
	case KindPermissionDenied:
		return "Camera access was denied. Allow camera access in your browser settings, or enter the code manually."
	case KindSourceBusy:
		return "The camera is in use by another application. Close it and retry, or enter the code manually."
	case KindUnsatisfiable:
		return "The camera does not support the requested capture settings. Try another device, or enter the code manually."
	case KindTimeout:
		return "Starting the camera timed out. Retry, or enter the code manually."
	default:
		return "Could not start the camera: " + e.Reason + ". Enter the code manually."
	}
}
