// Package main provides the entry point for the placesdir CLI.
//
// placesdir keeps a directory of sites grouped by region in a durable slot
// and serves it over a JSON HTTP API.
//
// Usage:
//
//	placesdir serve
//	placesdir regions
//	placesdir show IL --sort name-asc
//	placesdir add IL --set name="Loop" --set websites=example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
