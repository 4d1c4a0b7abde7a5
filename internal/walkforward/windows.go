// Package walkforward partitions history into train/out-of-sample
// windows, re-optimizes hyperparameters on each training slice, and
// stitches the out-of-sample equity segments.
package walkforward

import "time"

// Window is one train/out-of-sample split. TrainEnd always coincides
// with OOSStart, so train data never reaches into the OOS range.
type Window struct {
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	OOSStart   time.Time `json:"oos_start"`
	OOSEnd     time.Time `json:"oos_end"`
}

// Windows generates walk-forward windows over [start, end]. Each
// window trains on trainYears*365 days and evaluates the following
// oosMonths*30 days, clamped to end. The next window starts at the
// prior OOS start, giving chronologically ordered, non-overlapping OOS
// coverage. Generation stops when the remaining span cannot hold a
// full training period.
func Windows(start, end time.Time, trainYears, oosMonths int) []Window {
	var windows []Window
	current := start

	for current.Before(end) {
		trainStart := current
		trainEnd := trainStart.AddDate(0, 0, 365*trainYears)
		if trainEnd.After(end) {
			break
		}

		oosStart := trainEnd
		oosEnd := oosStart.AddDate(0, 0, 30*oosMonths)
		if oosEnd.After(end) {
			oosEnd = end
		}
		if !oosStart.Before(oosEnd) {
			break
		}

		windows = append(windows, Window{
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			OOSStart:   oosStart,
			OOSEnd:     oosEnd,
		})
		current = oosStart
	}
	return windows
}
