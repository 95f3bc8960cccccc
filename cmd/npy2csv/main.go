package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/KyungWonPark/RestingConnectome/internal/io"
)

func main() { // npy2csv file.npy [file.npy ...]
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s file.npy [file.npy ...]\n", os.Args[0])
	}

	for _, fileName := range os.Args[1:] {
		matrix, err := io.ReadNpy(fileName)
		if err != nil {
			log.Fatalf("[ERROR] %v\n", err)
		}
		fmt.Printf("Reading %s complete\n", fileName)

		if err := io.WriteCSV(strings.TrimSuffix(fileName, ".npy")+".csv", matrix); err != nil {
			log.Fatalf("[ERROR] %v\n", err)
		}
	}
}
