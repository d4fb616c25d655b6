// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package querymeta

// FileID identifies one storage file belonging to a stream's file list
// (spec §3 "File identifier").
type FileID struct {
	ID           int64
	Records      int64
	OriginalSize int64
	Deleted      bool
}

// FileList is the ordered sequence of FileIDs for one stream within a
// requested time range.
type FileList []FileID

// TotalOriginalSize sums OriginalSize across all non-deleted files.
func (fl FileList) TotalOriginalSize() int64 {
	var total int64
	for _, f := range fl {
		if !f.Deleted {
			total += f.OriginalSize
		}
	}
	return total
}

// TotalRecords sums Records across all non-deleted files.
func (fl FileList) TotalRecords() int64 {
	var total int64
	for _, f := range fl {
		if !f.Deleted {
			total += f.Records
		}
	}
	return total
}
