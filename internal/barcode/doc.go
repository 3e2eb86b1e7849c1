// Package barcode decodes linear and QR symbols from raster crops.
//
// The default Backend is built on gozxing and runs every supported reader
// over the input, masking each decoded symbol so that further symbols in the
// same image are surfaced by later passes. RotatingDecoder layers an angle
// sweep on top of any Backend.
package barcode
