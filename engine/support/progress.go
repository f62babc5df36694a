package support

// UnknownTotal is passed as total when the number of samples is not known.
const UnknownTotal = -1

// Progress is called at most once per determinization sample with the number
// of samples finished so far. Calls are serialized by the caller.
type Progress func(done, total int)

// Report calls p if it is set.
func (p Progress) Report(done, total int) {
	if p != nil {
		p(done, total)
	}
}
