package detector

// InvalidParameter is returned by New when the smoothing factor or threshold
// is outside its allowed domain
type InvalidParameter struct {
	Msg string
}

func (e InvalidParameter) Error() string {
	return e.Msg
}

// InvalidInput is returned by Observe when the observation is not a finite
// number.  The observation is rejected without changing the detector state.
type InvalidInput struct {
	Msg string
}

func (e InvalidInput) Error() string {
	return e.Msg
}
