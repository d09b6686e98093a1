package model

// Version is the application version, overridden at link time with
// -ldflags "-X glob1env/internal/model.Version=...".
var Version = "0.3.0"
