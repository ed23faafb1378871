package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vivekpujara/data-transfer-tool/internal/checksum"
	"github.com/vivekpujara/data-transfer-tool/pkg/builder"
	"github.com/vivekpujara/data-transfer-tool/pkg/progress"
	"github.com/vivekpujara/data-transfer-tool/pkg/s3client"
)

type uploadOptions struct {
	source      string
	destination string
	tempPath    string
	glacier     bool
	excludes    []string
}

func newUploadCmd() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Package a folder and upload it to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAWSConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runUpload(cmd.Context(), s3client.NewAWSClient(cfg), &opts)
		},
	}

	cwd, _ := os.Getwd()
	cmd.Flags().StringVar(&opts.source, "source", "", "Folder to upload")
	cmd.Flags().StringVar(&opts.destination, "destination", "", "S3 bucket and object path, e.g. mybucket:path/data.tar.gz")
	cmd.Flags().StringVar(&opts.tempPath, "temp-path", cwd, "Directory for building the tarball")
	cmd.Flags().BoolVar(&opts.glacier, "glacier", false, "Store the data in Glacier Deep Archive")
	cmd.Flags().StringSliceVar(&opts.excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("destination")

	return cmd
}

func runUpload(ctx context.Context, client s3client.Client, opts *uploadOptions) error {
	bucket, key, err := s3client.ParseBucketKey(opts.destination)
	if err != nil {
		return err
	}

	tarName := filepath.Base(filepath.Clean(opts.source)) + ".tar.gz"
	archivePath := filepath.Join(opts.tempPath, tarName)

	var tracker *progress.Tracker
	res, err := builder.Build(ctx, builder.Options{
		SourceRoot:  opts.source,
		ArchivePath: archivePath,
		Excludes:    opts.excludes,
		OnPlan: func(files int, bytes int64) {
			tracker = progress.New("Packing", bytes, quiet)
			tracker.Start()
		},
		OnAppend: func(rel string, size int64) {
			tracker.Add(size)
		},
	})
	if tracker != nil {
		tracker.Stop()
	}
	if err != nil {
		if errors.Is(err, builder.ErrBuildInProgress) {
			return err
		}
		return fmt.Errorf("build tarball: %w", err)
	}
	slog.Info("tarball ready",
		"path", archivePath,
		"members", res.TotalMembers,
		"size", humanize.IBytes(uint64(res.ArchiveSize)))

	if err := client.BucketExists(ctx, bucket); err != nil {
		return err
	}

	info, err := client.HeadObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	if info != nil {
		if !confirm(fmt.Sprintf("An object with key %q already exists in bucket %q. Overwrite?", key, bucket)) {
			slog.Info("upload canceled by user")
			return nil
		}
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tarball: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat tarball: %w", err)
	}

	storage := s3client.StorageClassStandard
	if opts.glacier {
		storage = s3client.StorageClassDeepArchive
	}

	sum := checksum.NewReader(f)
	up := progress.New("Uploading", fi.Size(), quiet)
	up.Start()
	err = client.Upload(ctx, &s3client.UploadRequest{
		Bucket:       bucket,
		Key:          key,
		Body:         up.Reader(sum),
		Size:         fi.Size(),
		ContentType:  "application/gzip",
		StorageClass: storage,
	})
	up.Stop()
	if err != nil {
		return err
	}

	// The original tool always re-checked the object after upload;
	// keep that paranoia.
	info, err = client.HeadObject(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("verify upload: %w", err)
	}
	if info == nil {
		return fmt.Errorf("upload verification failed: s3://%s/%s not found after upload", bucket, key)
	}
	if info.Size != fi.Size() {
		return fmt.Errorf("upload verification failed: s3://%s/%s is %d bytes, expected %d", bucket, key, info.Size, fi.Size())
	}
	if local, sumErr := sum.Sum(); sumErr == nil && info.ChecksumSHA256 != "" {
		if checksum.Composite(info.ChecksumSHA256) {
			slog.Debug("skipping checksum comparison for multipart object", "remote", info.ChecksumSHA256)
		} else if local != info.ChecksumSHA256 {
			return fmt.Errorf("upload verification failed: checksum mismatch (local %s, remote %s)", local, info.ChecksumSHA256)
		}
	}

	slog.Info("upload complete",
		"destination", fmt.Sprintf("%s:%s", bucket, key),
		"size", humanize.IBytes(uint64(fi.Size())),
		"storage_class", string(storage))
	return nil
}
