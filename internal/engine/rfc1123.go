package engine

import "time"

// rfc1123GMT formats t as an RFC 1123 date with the literal "GMT" zone
// abbreviation HTTP/1.1 requires (time.RFC1123 would print "UTC"),
// matching original_source/http-daemon.cpp's rfc1123_time() and
// spec.md §4.2/§4.5's Date and Last-Modified header formats.
func rfc1123GMT(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// httpDate formats the current time for the Date response header.
func httpDate() string {
	return rfc1123GMT(time.Now())
}

// defaultNow is the production now() driver contract (spec.md §6).
func defaultNow() time.Time {
	return time.Now()
}
