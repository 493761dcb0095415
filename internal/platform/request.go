package platform

import "context"

// Request 是引擎产出的抓取请求。网络细节（限速、代理、UA 池、编码转换）
// 全部由 Fetcher 实现方承担，引擎只描述要取什么。
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string // 已完成 URL-form 编码的 POST body；GET 时为空
	Cookies []Cookie
}

// Cookie 是随请求注入的 cookie（Madara 站点靠 wpmanga-adault=1 解锁成人内容）。
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Response 只保留引擎关心的两样：状态码与正文。
// 约束：body 已经是 UTF-8（编码探测/转换在 Fetcher 内完成）。
type Response struct {
	Status int
	Body   []byte
}

// Fetcher 是引擎对外部传输层的唯一依赖。
//
// 约束：
// - 不在引擎内重试：结构性失败（ExtractionError）重试无意义，503 需要用户介入
// - body 为空不算错误，引擎按"没有行"处理
type Fetcher interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}
