package storage

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskUsage describes the filesystem holding a path.
type DiskUsage struct {
	TotalBytes uint64
	FreeBytes  uint64
	UsedBytes  uint64
}

// UsedPercent returns the used share of the filesystem, 0-100.
func (d DiskUsage) UsedPercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.UsedBytes) / float64(d.TotalBytes) * 100
}

// Usage reports filesystem capacity for path.
func Usage(path string) (DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskUsage{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(stat.Bsize)
	total := stat.Blocks * bsize
	free := stat.Bavail * bsize
	return DiskUsage{
		TotalBytes: total,
		FreeBytes:  free,
		UsedBytes:  total - stat.Bfree*bsize,
	}, nil
}
