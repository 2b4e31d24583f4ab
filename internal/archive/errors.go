package archive

import "errors"

// Error taxonomy for header and TOC parsing, per spec.md §7. All are
// fatal to the current dump; none are retried internally.
var (
	ErrBadMagic           = errors.New("pgdumb: bad magic")
	ErrUnsupportedVersion = errors.New("pgdumb: unsupported dump version")
	ErrUnsupportedFormat  = errors.New("pgdumb: unsupported format discriminator")
	ErrBadCompression     = errors.New("pgdumb: bad compression descriptor")
	ErrBadDate            = errors.New("pgdumb: invalid creation date")
)
