package model

type CaptureState string

const (
	CaptureIdle       CaptureState = "idle"
	CaptureRecording  CaptureState = "recording"
	CaptureFinalizing CaptureState = "finalizing"
)

func (s CaptureState) Active() bool {
	return s == CaptureRecording || s == CaptureFinalizing
}
