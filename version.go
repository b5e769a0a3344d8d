package funnel

// Version is the library version, set at release time.
var Version = "0.3.0"
