package feed

// 流文件名。父记录（元数据）流必须先于引用它们的子记录（向量/分群）流
// 写出与摄入，外部引擎按父先子后的顺序校验记录链接。
const (
	StreamUserData      = "user_data.jsonl"
	StreamProductData   = "product_data.jsonl"
	StreamUserVector    = "user_vector.jsonl"
	StreamProductVector = "product_vector.jsonl"
	StreamUserSegment   = "user_segment.jsonl"
	StreamUserSignal    = "user_signal.jsonl"
	StreamProductSignal = "product_signal.jsonl"
)

// 引擎集合名
const (
	CollectionUserVector    = "user_vector"
	CollectionProductVector = "product_vector"
)

// UserDataRecord 用户元数据（父记录）。
type UserDataRecord struct {
	UID     string `json:"uid"`
	Country string `json:"country"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
}

// ProductDataRecord 商品元数据（父记录）。
type ProductDataRecord struct {
	PID        string   `json:"pid"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// UserVectorRecord 用户向量（子记录，引用 user_data）。
type UserVectorRecord struct {
	UID          string    `json:"uid"`
	UserDataRef  string    `json:"user_data_ref"`
	Embedding    []float64 `json:"embedding"`
	ModelVersion string    `json:"model_version"`
}

// ProductVectorRecord 商品向量（子记录，引用 product_data）。
type ProductVectorRecord struct {
	PID            string    `json:"pid"`
	ProductDataRef string    `json:"product_data_ref"`
	Embedding      []float64 `json:"embedding"`
	ModelVersion   string    `json:"model_version"`
}

// UserSegmentRecord 用户分群（子记录，引用 user_data）。
type UserSegmentRecord struct {
	UID          string `json:"uid"`
	UserDataRef  string `json:"user_data_ref"`
	Segment      string `json:"segment"`
	ModelVersion string `json:"model_version"`
}

// SignalRecord 辅助排序信号，值已归一化到 [0,1]。
type SignalRecord struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}
