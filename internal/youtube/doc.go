// Package youtube implements the resumable upload protocol used to publish
// media to the configured channel.
//
// An upload is a metadata POST that opens a session followed by sequential
// chunk PUTs against the session URI. The endpoint acknowledges partial
// progress with status 308 and a Range header; the client always resumes
// from the server's committed offset rather than its own bookkeeping. Every
// protocol step runs under a bounded exponential backoff budget. A token
// rejection abandons the session: the credential is refreshed once through
// the TokenProvider and the whole transfer restarts from byte zero.
package youtube
