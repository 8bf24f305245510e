package models

import "encoding/xml"

// Namespaces used by 3MF packages
const (
	CoreNamespace       = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	ProductionNamespace = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
)

// Model represents a 3MF model structure
type Model struct {
	XMLName   xml.Name   `xml:"model"`
	Xmlns     string     `xml:"xmlns,attr,omitempty"`
	Unit      string     `xml:"unit,attr,omitempty"`
	Lang      string     `xml:"xml:lang,attr,omitempty"`
	Metadata  []Metadata `xml:"metadata"`
	Resources Resources  `xml:"resources"`
	Build     Build      `xml:"build"`
}

type Metadata struct {
	Name     string `xml:"name,attr"`
	Preserve string `xml:"preserve,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type Resources struct {
	BaseMaterials []BaseMaterials `xml:"basematerials"`
	Objects       []Object        `xml:"object"`
}

type BaseMaterials struct {
	ID    string `xml:"id,attr"`
	Bases []Base `xml:"base"`
}

type Base struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

type Object struct {
	ID         string      `xml:"id,attr"`
	Name       string      `xml:"name,attr,omitempty"`
	Type       string      `xml:"type,attr,omitempty"`
	PID        string      `xml:"pid,attr,omitempty"`
	PIndex     string      `xml:"pindex,attr,omitempty"`
	Mesh       *Mesh       `xml:"mesh"`
	Components *Components `xml:"components"`
}

type Mesh struct {
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

type Vertices struct {
	Vertex []Vertex `xml:"vertex"`
}

type Vertex struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type Triangles struct {
	Triangle []Triangle `xml:"triangle"`
}

type Triangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type Components struct {
	Component []Component `xml:"component"`
}

// Component references another object, optionally in a separate model part
type Component struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr,omitempty"`
	Path      string `xml:"http://schemas.microsoft.com/3dmanufacturing/production/2015/06 path,attr,omitempty"`
}

type Build struct {
	Items []Item `xml:"item"`
}

type Item struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr,omitempty"`
	Printable string `xml:"printable,attr,omitempty"`
}
