package zvm

import (
	"encoding/csv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	switchColumns = 7
	userColumns   = 7
)

// SwitchRow is a line of the xCAT switch table:
// node,switch,port,vlan,interface,comments,disable
type SwitchRow struct {
	Node      string
	Switch    string
	Port      string
	VLAN      string
	Interface string
	// Comments holds the zHCP node the port belongs to.
	Comments string
	Disable  string
}

// UserRow is a line of the xCAT zvm table:
// node,hcp,userid,nodetype,parent,comments,disable
type UserRow struct {
	Node     string
	HCP      string
	UserID   string
	NodeType string
	Parent   string
	Comments string
	Disable  string
}

func splitRow(line string, columns int) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		return nil, terrors.Mark(errors.Wrapf(err, "parse row %q", line), terrors.ErrInvalidData)
	}
	if len(fields) != columns {
		return nil, terrors.Newf(terrors.ErrInvalidData, "row %q has %d columns, want %d", line, len(fields), columns)
	}
	return fields, nil
}

// DecodeSwitchRow .
func DecodeSwitchRow(line string) (*SwitchRow, error) {
	f, err := splitRow(line, switchColumns)
	if err != nil {
		return nil, err
	}
	return &SwitchRow{
		Node:      f[0],
		Switch:    f[1],
		Port:      f[2],
		VLAN:      f[3],
		Interface: f[4],
		Comments:  f[5],
		Disable:   f[6],
	}, nil
}

// DecodeUserRow .
func DecodeUserRow(line string) (*UserRow, error) {
	f, err := splitRow(line, userColumns)
	if err != nil {
		return nil, err
	}
	return &UserRow{
		Node:     f[0],
		HCP:      f[1],
		UserID:   f[2],
		NodeType: f[3],
		Parent:   f[4],
		Comments: f[5],
		Disable:  f[6],
	}, nil
}

// stripHeader drops the leading "#col,col" lines of a table dump.
func stripHeader(lines []string) []string {
	for len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		lines = lines[1:]
	}
	return lines
}
