package logging

import (
	"log"
	"os"
)

func New() *log.Logger {
	return log.New(os.Stdout, "kumabridge ", log.LstdFlags|log.LUTC)
}
