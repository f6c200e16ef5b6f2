// Package exchange adapts a geometry kernel's format translators to a small
// import and export API for IGES, STEP, STL and native .brep files.
//
// Importers validate the source path, run the kernel reader and keep the
// transferred shapes. Exporters validate the destination and their options,
// queue shapes through CheckShape and hand them to a fresh kernel writer on
// every WriteFile. Kernel statuses other than done become errors that match
// one of the package's error kinds; nothing is retried.
//
// All calls are synchronous. An importer or exporter belongs to one
// goroutine.
package exchange
