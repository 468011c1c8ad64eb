// Package camera registers physical capture devices with the driver
// registry. Only Linux (V4L2) is implemented; other platforms enumerate
// no cameras.
package camera
