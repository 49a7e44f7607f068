package fileupload

import (
	"errors"
	"fmt"
)

// DefaultDiskSpace is a user's storage allowance in bytes unless raised.
const DefaultDiskSpace int64 = 500000000

// ErrInsufficientSpace is returned when an upload would exceed the
// uploader's allowance.
var ErrInsufficientSpace = errors.New("arbor: not enough space")

// User is an uploader and their storage allowance.
type User struct {
	ID        string
	DiskSpace int64
}

// NewUser returns a user with the default allowance.
func NewUser(id string) User {
	return User{ID: id, DiskSpace: DefaultDiskSpace}
}

// Allowance returns DiskSpace, or DefaultDiskSpace when unset.
func (u User) Allowance() int64 {
	if u.DiskSpace <= 0 {
		return DefaultDiskSpace
	}
	return u.DiskSpace
}

// Remaining returns the bytes left after used.
func (u User) Remaining(used int64) int64 {
	if r := u.Allowance() - used; r > 0 {
		return r
	}
	return 0
}

// CheckQuota fails when a file of size bytes does not fit next to used.
func CheckQuota(u User, used, size int64) error {
	if size > u.Remaining(used) {
		return fmt.Errorf("%w: %d bytes requested, %d available", ErrInsufficientSpace, size, u.Remaining(used))
	}
	return nil
}

// Usage sums the sizes of files uploaded by userID.
func Usage(files []File, userID string) int64 {
	var total int64
	for _, f := range files {
		if f.UploadedBy == userID {
			total += f.FileSize
		}
	}
	return total
}
