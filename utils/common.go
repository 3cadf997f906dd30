package utils

const (
	NODETOL     = 1.e-12
	MACHINE_EPS = 2.220446049250313e-16
)
