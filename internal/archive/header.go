package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/ak4code/pgdumb/internal/codec"
)

// Magic is the fixed five-byte prefix of every custom-format dump.
const Magic = "PGDMP"

// FormatCustom is the only format discriminator this engine accepts.
const FormatCustom = 1

// Header is the fixed preamble of a custom-format dump: magic, version,
// the two codec width parameters, format discriminator, compression
// method, creation timestamp, and three identifying strings.
type Header struct {
	Version       Version
	IntSize       int
	OffsetSize    int
	Compression   CompressionMethod
	CreatedAt     time.Time
	DatabaseName  string
	ServerVersion string
	DumperVersion string
}

// ParseHeader consumes bytes 1:1 off r following spec.md §4.3's strict,
// fail-fast sequence, installing the discovered width parameters into c
// as it goes.
func ParseHeader(r io.Reader, c *codec.Codec) (*Header, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", codec.ErrUnexpectedEOF)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, magic)
	}

	major, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read version major: %w", err)
	}
	minor, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read version minor: %w", err)
	}
	patch, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read version patch: %w", err)
	}
	version := Version{Major: major, Minor: minor, Patch: patch}
	if !version.InSupportedRange() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	intSize, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read int_size: %w", err)
	}
	offsetSize, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read offset_size: %w", err)
	}
	c.IntSize = int(intSize)
	c.OffsetSize = int(offsetSize)

	format, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("read format discriminator: %w", err)
	}
	if format != FormatCustom {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedFormat, format)
	}

	compression, err := readCompressionMethod(r, c, version)
	if err != nil {
		return nil, err
	}

	createdAt, err := readCreationDate(r, c)
	if err != nil {
		return nil, err
	}

	databaseName, err := c.ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("read database name: %w", err)
	}
	serverVersion, err := c.ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("read server version: %w", err)
	}
	dumperVersion, err := c.ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("read dumper version: %w", err)
	}

	return &Header{
		Version:       version,
		IntSize:       int(intSize),
		OffsetSize:    int(offsetSize),
		Compression:   compression,
		CreatedAt:     createdAt,
		DatabaseName:  databaseName,
		ServerVersion: serverVersion,
		DumperVersion: dumperVersion,
	}, nil
}

// readCreationDate reads the seven C struct-tm-style ints and composes
// them into a time.Time, applying the year+1900/month+1 convention
// spec.md §4.3 step 6 describes. isdst is read but discarded.
func readCreationDate(r io.Reader, c *codec.Codec) (time.Time, error) {
	sec, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created sec: %w", err)
	}
	min, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created min: %w", err)
	}
	hour, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created hour: %w", err)
	}
	mday, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created mday: %w", err)
	}
	mon, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created mon: %w", err)
	}
	year, err := c.ReadInt(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("read created year: %w", err)
	}
	if _, err := c.ReadInt(r); err != nil { // isdst, discarded
		return time.Time{}, fmt.Errorf("read created isdst: %w", err)
	}

	if mday < 1 || mday > 31 || mon < 0 || mon > 11 || hour < 0 || hour > 23 ||
		min < 0 || min > 59 || sec < 0 || sec > 60 {
		return time.Time{}, fmt.Errorf("%w: out-of-range field", ErrBadDate)
	}

	created := time.Date(int(year)+1900, time.Month(mon+1), int(mday),
		int(hour), int(min), int(sec), 0, time.UTC)
	// time.Date normalizes overflowing fields (e.g. mday=31 in a
	// 30-day month) instead of erroring; detect that and reject it as
	// an invalid date the way a strict struct-tm composer would.
	if int(created.Month()) != int(mon)+1 || created.Day() != int(mday) {
		return time.Time{}, fmt.Errorf("%w: day %d does not exist in month %d", ErrBadDate, mday, mon+1)
	}

	return created, nil
}
