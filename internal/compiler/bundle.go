package compiler

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Bundle packages the given artifact files into one timestamped
// compressed archive in outputDir and returns its path. Archive entries
// use base names only.
func Bundle(outputDir string, paths []string, now time.Time) (string, error) {
	name := fmt.Sprintf("ignition_outputs_%s.tar.gz", now.UTC().Format("20060102_150405"))
	bundlePath := filepath.Join(outputDir, name)

	out, err := os.Create(bundlePath)
	if err != nil {
		return "", fmt.Errorf("create bundle: %w", err)
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	tw := tar.NewWriter(gzw)

	for _, path := range paths {
		if err := addFile(tw, path); err != nil {
			return "", fmt.Errorf("bundle %s: %w", filepath.Base(path), err)
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("close bundle: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return "", fmt.Errorf("close bundle: %w", err)
	}
	return bundlePath, nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
