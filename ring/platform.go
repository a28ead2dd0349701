// File: ring/platform.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import "os"

func pageSize() int { return os.Getpagesize() }
