// Package server exposes shape detection as MCP (Model Context Protocol) tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin
// and one response per line on stdout. Supported methods are initialize,
// tools/list, tools/call and ping; notifications/initialized is accepted
// without a response.
//
// # Tools
//
// Image information:
//   - image_load: decode an image into the cache and describe it
//   - image_dimensions: width and height
//   - image_sample_color: pixel color in several spaces plus its color name
//
// Shape detection:
//   - shapes_detect: identified shapes with geometry, label, color and
//     center-relative coordinates
//   - shapes_edge_detect: the edge map the contour finder sees
//   - shapes_annotate: PNG with outlines, markers and captions
//   - shapes_annotate_svg: the same annotations as an SVG overlay
//   - shapes_classify_color: name a single color
//
// The shape tools share optional min_area, threshold_low, threshold_high and
// strategy arguments. Zero values keep the pipeline the server was built
// with.
//
// Decoded images are cached by path for the lifetime of the process.
//
// # Errors
//
// Tool failures are JSON-RPC errors with code -32000 and the Go error string
// in data. Malformed lines get -32700, bad tools/call params -32602 and
// unknown methods -32601.
//
// # Usage
//
//	p, _ := cfg.NewPipeline()
//	srv := server.New(p, server.WithVersion(version))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
