// Package main is the entry point for the RiverFlow application.
package main

func main() {
	Execute()
}
