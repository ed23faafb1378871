package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vivekpujara/data-transfer-tool/internal/checksum"
	"github.com/vivekpujara/data-transfer-tool/pkg/extract"
	"github.com/vivekpujara/data-transfer-tool/pkg/progress"
	"github.com/vivekpujara/data-transfer-tool/pkg/s3client"
)

type downloadOptions struct {
	source        string
	destination   string
	extract       bool
	deleteTarball bool
}

func newDownloadCmd() *cobra.Command {
	var opts downloadOptions

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a tarball from S3 and optionally extract it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAWSConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runDownload(cmd.Context(), s3client.NewAWSClient(cfg), &opts)
		},
	}

	cwd, _ := os.Getwd()
	cmd.Flags().StringVar(&opts.source, "source", "", "S3 bucket and tarball path, e.g. mybucket:path/data.tar.gz")
	cmd.Flags().StringVar(&opts.destination, "destination", cwd, "Destination folder")
	cmd.Flags().BoolVar(&opts.extract, "extract", false, "Extract the tarball after download")
	cmd.Flags().BoolVar(&opts.deleteTarball, "delete-s3-tarball", false, "Delete the tarball from S3 after download")
	cmd.MarkFlagRequired("source")

	return cmd
}

func runDownload(ctx context.Context, client s3client.Client, opts *downloadOptions) error {
	bucket, key, err := s3client.ParseBucketKey(opts.source)
	if err != nil {
		return err
	}

	if err := client.BucketExists(ctx, bucket); err != nil {
		return err
	}
	info, err := client.HeadObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("object %q does not exist in bucket %q", key, bucket)
	}

	if err := os.MkdirAll(opts.destination, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	localPath := filepath.Join(opts.destination, path.Base(key))

	if _, err := os.Stat(localPath); err == nil {
		if !confirm(fmt.Sprintf("A file already exists at %q. Overwrite?", localPath)) {
			slog.Info("download canceled by user")
			return nil
		}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}

	tracker := progress.New("Downloading", info.Size, quiet)
	tracker.Start()
	n, err := client.Download(ctx, &s3client.DownloadRequest{
		Bucket: bucket,
		Key:    key,
		Body:   tracker.WriterAt(f),
	})
	tracker.Stop()
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return err
	}

	if info.ChecksumSHA256 != "" && !checksum.Composite(info.ChecksumSHA256) {
		local, err := checksum.SumFile(localPath)
		if err != nil {
			return fmt.Errorf("verify download: %w", err)
		}
		if local != info.ChecksumSHA256 {
			os.Remove(localPath)
			return fmt.Errorf("download verification failed: checksum mismatch (local %s, remote %s)", local, info.ChecksumSHA256)
		}
	}
	slog.Info("download complete", "path", localPath, "size", humanize.IBytes(uint64(n)))

	if opts.extract {
		files, err := extract.Extract(ctx, localPath, opts.destination)
		if err != nil {
			return fmt.Errorf("extract tarball: %w", err)
		}
		slog.Info("extraction complete", "files", files, "dir", opts.destination)
	}

	if opts.deleteTarball {
		if err := client.DeleteObject(ctx, bucket, key); err != nil {
			return err
		}
		slog.Info("deleted tarball from S3", "source", fmt.Sprintf("%s:%s", bucket, key))
	}

	return nil
}
