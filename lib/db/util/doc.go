// Package util provides helpers shared by the engine implementations of package db.
//
// SizeHistogram tracks the distribution of written entry sizes in exponential buckets
// (16 bytes to 4 GB) so that engines can report size estimates in their DatabaseInfo
// without scanning their data.
package util
