package utils

// Label 是候选在服务链路中的可解释标记：记录候选来自哪条召回路径、
// 被哪个过滤器处理过。Value 与 Source 的语义由各节点自定义。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / blend / filter / rerank ...
}

// MergeLabel 合并同名 Label，保留历史以便追踪：
//   - Value: 以 '|' 累积
//   - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
