// Package sanitizer normalises user-supplied strings before they are
// validated or forwarded: email addresses, single-line display text, and
// masked addresses for logs.
package sanitizer
