package telemetry

// Span attribute keys used for instrumentation.
const (
	// Raster
	AttrRasterPath   = "raster.path"
	AttrRasterWidth  = "raster.width"
	AttrRasterHeight = "raster.height"
	AttrRasterBands  = "raster.bands"

	// Scan
	AttrScanToleranceKm   = "scan.tolerance_km"
	AttrScanStopOnMatch   = "scan.stop_on_first_match"
	AttrScanPixelsVisited = "scan.pixels_visited"
	AttrScanMatched       = "scan.matched"
	AttrScanValidated     = "scan.validated"

	// Export
	AttrExportKind = "export.kind"
)
