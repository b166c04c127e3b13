// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed table of downstream client slots. Slots are allocated first-fit,
// iterated in index order and never grow; a full table rejects the caller.
package pool
