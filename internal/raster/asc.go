package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ASCGrid is one band read from an Esri ASCII grid file together with
// its georeferencing.
type ASCGrid struct {
	Grid     *Grid
	Geometry Geometry
	NoData   float64
}

// ReadASC parses an Esri ASCII grid (.asc) file. Cells equal to the
// header's nodata value become NaN. The header accepts either corner or
// center registration; center origins are shifted by half a cell.
func ReadASC(path string) (*ASCGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asc: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	header := map[string]float64{}
	var rows []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 2 && isHeaderKey(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("parse header %s: %w", fields[0], err)
			}
			header[strings.ToLower(fields[0])] = v
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read asc: %w", err)
	}

	cols := int(header["ncols"])
	nrows := int(header["nrows"])
	if cols <= 0 || nrows <= 0 {
		return nil, fmt.Errorf("asc header missing ncols/nrows")
	}
	cell, ok := header["cellsize"]
	if !ok || cell <= 0 {
		return nil, fmt.Errorf("asc header missing cellsize")
	}

	xll, xCorner := header["xllcorner"]
	yll, yCorner := header["yllcorner"]
	if !xCorner {
		if xc, ok := header["xllcenter"]; ok {
			xll = xc - cell/2
		} else {
			return nil, fmt.Errorf("asc header missing x origin")
		}
	}
	if !yCorner {
		if yc, ok := header["yllcenter"]; ok {
			yll = yc - cell/2
		} else {
			return nil, fmt.Errorf("asc header missing y origin")
		}
	}

	noData := -9999.0
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}

	if len(rows) != nrows {
		return nil, fmt.Errorf("asc has %d data rows, header says %d", len(rows), nrows)
	}

	grid := NewGrid(nrows, cols)
	for r, line := range rows {
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, fmt.Errorf("asc row %d has %d values, want %d", r, len(fields), cols)
		}
		for c, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("asc row %d col %d: %w", r, c, err)
			}
			if v == noData {
				v = math.NaN()
			}
			grid.Set(r, c, v)
		}
	}

	geom := Geometry{
		Extent: Extent{
			XMin: xll,
			YMin: yll,
			XMax: xll + float64(cols)*cell,
			YMax: yll + float64(nrows)*cell,
		},
		Rows: nrows,
		Cols: cols,
	}
	return &ASCGrid{Grid: grid, Geometry: geom, NoData: noData}, nil
}

func isHeaderKey(s string) bool {
	switch strings.ToLower(s) {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

// ASCSource builds a MemorySource from one or more .asc band files.
// All files must share one shape and extent; bands are exposed in the
// order given.
func ASCSource(paths []string, crs string) (*MemorySource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no band files given")
	}
	var bands []*Grid
	var geom Geometry
	for i, path := range paths {
		a, err := ReadASC(path)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i+1, err)
		}
		if i == 0 {
			geom = a.Geometry
		} else if a.Geometry != geom {
			return nil, fmt.Errorf("band %d geometry %v differs from band 1 %v", i+1, a.Geometry, geom)
		}
		bands = append(bands, a.Grid)
	}
	return NewMemorySource(bands, geom.Extent, crs)
}
