// Package dicom decodes instance headers into the vendor-neutral
// domain.Dataset tree and extracts vendor-private header blocks.
//
// Parsing is delegated to github.com/suyashkumar/dicom with pixel data
// skipped. Every element is converted through a closed VR table built at
// init; binary VRs become {vr, Available: true} stubs. Private blocks are
// dispatched on the manufacturer family: Siemens CSA headers in (0029,1010)
// and GE gzip blobs in (0025,101B).
package dicom
