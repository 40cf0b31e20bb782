package prfs

import (
	"path"
	"strconv"
	"time"
)

// TagLen is the length of the backup name tag: an underscore, ten
// digits of the Unix second, three digits of milliseconds, and a
// closing underscore.
const TagLen = 15

// secondsSpan is the modulus applied to the Unix second so the tag
// stays fixed-width. Tags roll over at this boundary (year 2286).
const secondsSpan = 10_000_000_000

// MakeTag derives the backup name tag for time t. Tags sort
// lexicographically in chronological order within a rollover span.
func MakeTag(t time.Time) string {
	sec := t.Unix() % secondsSpan
	ms := t.Nanosecond() / int(time.Millisecond)

	buf := make([]byte, TagLen)
	buf[0] = '_'
	buf[TagLen-1] = '_'
	for i := 10; i >= 1; i-- {
		buf[i] = byte('0' + sec%10)
		sec /= 10
	}
	for i := 13; i >= 11; i-- {
		buf[i] = byte('0' + ms%10)
		ms /= 10
	}
	return string(buf)
}

// BackupName prefixes the base of name with a tag derived from t,
// preserving the directory part.
func BackupName(name string, t time.Time) string {
	dir, base := path.Split(name)
	return dir + MakeTag(t) + base
}

// IsBackupName reports whether the base of name has the structural
// shape of a backup tag. Only the shape is checked: the thirteen
// digits are not validated as a plausible timestamp, so hand-crafted
// names that match are treated as backups.
func IsBackupName(name string) bool {
	base := path.Base(name)
	if len(base) < TagLen {
		return false
	}
	if base[0] != '_' || base[TagLen-1] != '_' {
		return false
	}
	for i := 1; i < TagLen-1; i++ {
		if base[i] < '0' || base[i] > '9' {
			return false
		}
	}
	return true
}

// OriginalName strips the tag from a backup name, preserving the
// directory part. Returns false if name is not a backup name.
func OriginalName(name string) (string, bool) {
	if !IsBackupName(name) {
		return "", false
	}
	dir, base := path.Split(name)
	return dir + base[TagLen:], true
}

// TagTime decodes the tag of a backup name back into a time. The
// seconds digits are interpreted directly as a Unix second, which is
// exact until the rollover boundary. Returns false if name is not a
// backup name.
func TagTime(name string) (time.Time, bool) {
	if !IsBackupName(name) {
		return time.Time{}, false
	}
	base := path.Base(name)
	sec, err := strconv.ParseInt(base[1:11], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(base[11:14], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, ms*int64(time.Millisecond)), true
}
