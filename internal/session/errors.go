package session

import "errors"

// ErrPersist wraps a storage failure after a mutation. The in-memory cart
// already reflects the mutation when it is returned.
var ErrPersist = errors.New("cart change could not be saved")
