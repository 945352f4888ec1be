package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sampleupload <file-or-directory>...\n\n")
		fmt.Fprintf(os.Stderr, "Uploads sample images to the shared sample prefix in object storage.\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.OSSEnabled {
		log.Fatal("Object storage is not configured (set OSS_ENABLED=true)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	store, err := storage.New(ctx, cfg, zlog)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	uploaded, failed := 0, 0
	for _, arg := range flag.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			log.Printf("Skipping %s: %v", arg, err)
			failed++
			continue
		}

		if info.IsDir() {
			entries, err := os.ReadDir(arg)
			if err != nil {
				log.Printf("Skipping %s: %v", arg, err)
				failed++
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if uploadOne(ctx, store, filepath.Join(arg, entry.Name())) {
					uploaded++
				} else {
					failed++
				}
			}
			continue
		}

		if uploadOne(ctx, store, arg) {
			uploaded++
		} else {
			failed++
		}
	}

	fmt.Printf("Uploaded %d, failed %d\n", uploaded, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func uploadOne(ctx context.Context, store *storage.ObjectStorage, path string) bool {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("Skipping %s: %v", path, err)
		return false
	}
	defer file.Close()

	url, err := services.UploadSample(ctx, store, filepath.Base(path), file)
	if err != nil {
		log.Printf("Failed %s: %v", path, err)
		return false
	}

	fmt.Printf("%s -> %s\n", path, url)
	return true
}
