package codec

import (
	"encoding/json"
	"fmt"
)

const (
	geoTypePoint   = "Point"
	geoTypePolygon = "Polygon"
)

type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// GeoPoint 地理坐标点，按 GeoJSON 以 [经度, 纬度] 编码。
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// MarshalJSON 实现 GeoJSON Point 编码。
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	coords, err := json.Marshal([2]float64{p.Longitude, p.Latitude})
	if err != nil {
		return nil, err
	}
	return json.Marshal(geoJSON{Type: geoTypePoint, Coordinates: coords})
}

// UnmarshalJSON 解析 GeoJSON Point。
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var g geoJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	if g.Type != geoTypePoint {
		return fmt.Errorf("codec: 期望 %s，得到 %q", geoTypePoint, g.Type)
	}
	var coords [2]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return err
	}
	p.Longitude, p.Latitude = coords[0], coords[1]
	return nil
}

// GeoPolygon 多边形，首尾点需相同才构成闭合区域，编码时自动闭合。
type GeoPolygon struct {
	Points []GeoPoint
}

// NewGeoPolygon 以顶点创建多边形。
func NewGeoPolygon(points ...GeoPoint) GeoPolygon {
	return GeoPolygon{Points: append([]GeoPoint(nil), points...)}
}

func (g GeoPolygon) ring() [][2]float64 {
	ring := make([][2]float64, 0, len(g.Points)+1)
	for _, p := range g.Points {
		ring = append(ring, [2]float64{p.Longitude, p.Latitude})
	}
	if n := len(ring); n > 0 && ring[0] != ring[n-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// MarshalJSON 实现 GeoJSON Polygon 编码。
func (g GeoPolygon) MarshalJSON() ([]byte, error) {
	coords, err := json.Marshal([][][2]float64{g.ring()})
	if err != nil {
		return nil, err
	}
	return json.Marshal(geoJSON{Type: geoTypePolygon, Coordinates: coords})
}

// UnmarshalJSON 解析 GeoJSON Polygon，只读取外环。
func (g *GeoPolygon) UnmarshalJSON(data []byte) error {
	var raw geoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != geoTypePolygon {
		return fmt.Errorf("codec: 期望 %s，得到 %q", geoTypePolygon, raw.Type)
	}
	var rings [][][2]float64
	if err := json.Unmarshal(raw.Coordinates, &rings); err != nil {
		return err
	}
	g.Points = nil
	if len(rings) == 0 {
		return nil
	}
	for _, c := range rings[0] {
		g.Points = append(g.Points, GeoPoint{Longitude: c[0], Latitude: c[1]})
	}
	return nil
}
