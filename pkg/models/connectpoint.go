package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidConnectPoint = errors.New("invalid connect point")

// ConnectPoint is an edge location: a port on a relay device.
type ConnectPoint struct {
	Device string `json:"device" yaml:"device"`
	Port   string `json:"port" yaml:"port"`
}

func (cp ConnectPoint) String() string {
	return cp.Device + "/" + cp.Port
}

func (cp ConnectPoint) IsZero() bool {
	return cp.Device == "" && cp.Port == ""
}

// ParseConnectPoint splits on the last "/" so device ids may contain slashes.
func ParseConnectPoint(s string) (ConnectPoint, error) {
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return ConnectPoint{}, fmt.Errorf("%w: %q", ErrInvalidConnectPoint, s)
	}
	return ConnectPoint{Device: s[:idx], Port: s[idx+1:]}, nil
}

func (cp *ConnectPoint) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseConnectPoint(s)
	if err != nil {
		return err
	}
	*cp = parsed
	return nil
}

// VLAN is an 802.1Q VLAN id. Zero means untagged.
type VLAN uint16

const (
	VLANNone VLAN = 0
	VLANMax  VLAN = 4094

	vlanNoneString = "None"
)

func (v VLAN) String() string {
	if v == VLANNone {
		return vlanNoneString
	}
	return strconv.Itoa(int(v))
}

func (v VLAN) Tagged() bool {
	return v != VLANNone
}

func ParseVLAN(s string) (VLAN, error) {
	if s == vlanNoneString || s == "" {
		return VLANNone, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse vlan %q: %w", s, err)
	}
	if VLAN(n) > VLANMax {
		return 0, fmt.Errorf("vlan %d out of range", n)
	}
	return VLAN(n), nil
}

func VLANFromInt(n int) (VLAN, error) {
	if n < 0 || n > int(VLANMax) {
		return 0, fmt.Errorf("vlan %d out of range", n)
	}
	return VLAN(n), nil
}

// PortVLAN is a VLAN on one connect point.
type PortVLAN struct {
	ConnectPoint ConnectPoint
	VLAN         VLAN
}

func (p PortVLAN) String() string {
	return p.ConnectPoint.String() + ":" + p.VLAN.String()
}
