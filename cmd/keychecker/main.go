package main

import (
	"log"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ keychecker failed to start: %v", err)
	}
}
