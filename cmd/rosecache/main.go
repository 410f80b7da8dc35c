package main

// Version is stamped at build time via -ldflags; "dev" is the fallback for
// local builds.
var Version = "dev"

func main() {
	execute()
}
