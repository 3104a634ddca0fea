package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LocationTypeTableOn 子位置类型（展项下的共享座位，需要实时占用状态）
const LocationTypeTableOn = 2

// Location 位置（展项或展项下的子位置）
type Location struct {
	ID             int    `json:"id"`
	Description    string `json:"description"`
	LocationTypeID int    `json:"locationTypeId"`
	ParentID       int    `json:"parentId"`
	ContentURL     string `json:"contentURL"`
	IPAddress      string `json:"ipAddress,omitempty"`
	Liked          bool   `json:"liked,omitempty"`
}

// IsSubLocation 是否为子位置（table-on）
func (l Location) IsSubLocation() bool {
	return l.LocationTypeID == LocationTypeTableOn
}

// LookupTable 位置查找表：id -> Location
// 每次服务器下发都整体替换，不做局部修改。
type LookupTable map[int]Location

// Find 查找位置
func (t LookupTable) Find(id int) (Location, bool) {
	loc, ok := t[id]
	return loc, ok
}

// Children 返回某展项下的所有子位置（按 id 排序）
func (t LookupTable) Children(parentID int) []Location {
	var out []Location
	for _, loc := range t {
		if loc.IsSubLocation() && loc.ParentID == parentID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnmarshalJSON 服务器下发的是位置数组，也兼容 id->位置 的对象形式
func (t *LookupTable) UnmarshalJSON(data []byte) error {
	var list []Location
	if err := json.Unmarshal(data, &list); err == nil {
		table := make(LookupTable, len(list))
		for _, loc := range list {
			table[loc.ID] = loc
		}
		*t = table
		return nil
	}

	var byID map[string]Location
	if err := json.Unmarshal(data, &byID); err != nil {
		return fmt.Errorf("invalid lookup table: %w", err)
	}
	table := make(LookupTable, len(byID))
	for _, loc := range byID {
		table[loc.ID] = loc
	}
	*t = table
	return nil
}
