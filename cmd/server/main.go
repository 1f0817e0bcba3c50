package main

import (
	_ "github.com/eleven-am/burst-camera/docs"
	"github.com/eleven-am/burst-camera/internal/bootstrap"
)

// @title Burst Camera API
// @version 1.0.0
// @description Control plane for the burst capture camera daemon

// @host localhost:8080
// @BasePath /v1

func main() {
	bootstrap.Run()
}
