package core

// IDMapping 是外部实体 ID（字符串）与稠密矩阵下标（从 0 开始）之间的双向映射。
//
// 约束：
//   - 类型内双射：一个 ID 对应唯一下标，反之亦然
//   - 按首次出现顺序分配下标（给定相同输入顺序可复现）
//   - 训练运行构建一次，之后视为只读；未收录的 ID 即冷启动实体
type IDMapping struct {
	toIndex map[string]int
	toID    []string
}

// NewIDMapping 创建一个空映射。
func NewIDMapping() *IDMapping {
	return &IDMapping{
		toIndex: make(map[string]int),
	}
}

// Add 注册一个 ID，返回其下标。已注册的 ID 返回既有下标。
func (m *IDMapping) Add(id string) int {
	if idx, ok := m.toIndex[id]; ok {
		return idx
	}
	idx := len(m.toID)
	m.toIndex[id] = idx
	m.toID = append(m.toID, id)
	return idx
}

// Index 查询 ID 对应的下标。第二个返回值表示是否已收录。
func (m *IDMapping) Index(id string) (int, bool) {
	idx, ok := m.toIndex[id]
	return idx, ok
}

// ID 按下标反查 ID。下标越界时返回空串和 false。
func (m *IDMapping) ID(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.toID) {
		return "", false
	}
	return m.toID[idx], true
}

// Len 返回已收录的 ID 数量。
func (m *IDMapping) Len() int {
	return len(m.toID)
}

// IDs 按下标顺序返回全部 ID。返回的是内部切片的拷贝。
func (m *IDMapping) IDs() []string {
	out := make([]string, len(m.toID))
	copy(out, m.toID)
	return out
}
