// Package persist stores identified shapes as JSON.
//
// A Record is one shape in the persisted form:
//
//	{
//	    "shape": {"contour": [[x, y], ...], "num_vertices": n, "center": [x, y],
//	              "area": a, "perimeter": p, "circularity": c},
//	    "label": "Square", "color": "Red", "coordinates": [dx, dy],
//	    "frame": 0, "session": "<uuid>"
//	}
//
// A Recorder collects the records of every frame in a session and hands the
// whole set to a Sink (a local file, any io.Writer, or an S3 object).
package persist
