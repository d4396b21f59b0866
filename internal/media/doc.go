// Package media resolves job media references against the media library.
//
// References are either absolute paths or paths relative to the configured
// library directory; relative references may not escape it. The resolver
// also derives a presentable default title from the file name when a job is
// scheduled without one.
package media
