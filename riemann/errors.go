package riemann

import "github.com/joomcode/errorx"

var (
	Errors = errorx.NewNamespace("riemann")

	ErrNotConnected  = Errors.NewType("not_connected")
	ErrBacklogFull   = Errors.NewType("backlog_full")
	ErrInvalidMetric = Errors.NewType("invalid_metric")
)
