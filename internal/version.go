package internal

// Version is the current version of roomcast
// This should be updated with each release
const Version = "0.3.0"
