package ownership

import "errors"

var ErrNotFound = errors.New("resource not found")
var ErrForbidden = errors.New("resource belongs to another subscriber")

// Owned is implemented by resources that belong to exactly one subscriber.
type Owned interface {
	OwnedBy() int
}

// IsOwnedBy reports whether resource belongs to the subscriber.
func IsOwnedBy(resource Owned, subscriberId int) bool {
	return resource.OwnedBy() == subscriberId
}

// Check distinguishes a missing resource from a foreign one.
func Check(resource Owned, found bool, subscriberId int) error {
	if !found || resource == nil {
		return ErrNotFound
	}
	if !IsOwnedBy(resource, subscriberId) {
		return ErrForbidden
	}
	return nil
}
