// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Cross-platform buffer pooling layer used as the allocator passed to a
// block's Initialize/Deinitialize (spec.md §3 Lifecycle). Platform-specific
// backends live in bufferpool_linux.go / bufferpool_windows.go.
package pool
