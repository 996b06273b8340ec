// Package fileutil locates corpus pages on disk.
package fileutil
