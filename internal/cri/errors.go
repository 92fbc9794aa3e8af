package cri

import "errors"

var errNotImplemented = errors.New("cri: runtime service not implemented")
