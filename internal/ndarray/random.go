package ndarray

// SampleGaussian fills out in place with independent samples from a
// gaussian distribution with mean mu and standard deviation sigma. The
// fill is a single asynchronous registration against out's buffer and
// obeys the usual per-buffer write ordering. Parameters are passed to
// the engine as given; no range validation is performed.
func SampleGaussian(mu, sigma float32, out NDArray) error {
	if out.blob == nil {
		return ErrUninitialized
	}
	out.blob.eng.PushFill(DistGaussian, mu, sigma, out.span())
	return nil
}

// SampleUniform fills out in place with independent samples from a
// uniform distribution on [low, high). low <= high is a caller
// responsibility; violating it yields engine-defined results.
func SampleUniform(low, high float32, out NDArray) error {
	if out.blob == nil {
		return ErrUninitialized
	}
	out.blob.eng.PushFill(DistUniform, low, high, out.span())
	return nil
}
