package build

// LogLevel specifies a default log level for the stdout logger built with the
// stdlog tag.
var LogLevel = "info"
