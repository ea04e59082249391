package serializer

// StdoutURI is the special output path indicating results should be
// written to stdout.
const StdoutURI = "-"
