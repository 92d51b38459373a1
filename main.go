package main

import "go-crewkit/internal/app"

func main() {
	app.Run()
}
