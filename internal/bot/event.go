package bot

// EventKind 入站事件类型
type EventKind string

const (
	// EventText 自由文本输入
	EventText EventKind = "text"
	// EventSelection 按钮选择，Payload 为动作令牌
	EventSelection EventKind = "selection"
)

// Event 传输层上送给状态机的统一事件
// 状态机只认识会话键、事件类型和载荷，不感知聊天平台细节
type Event struct {
	SessionKey int64
	Kind       EventKind
	Payload    string
	Username   string
	FirstName  string
}

// Button 出站按钮：Token 非空走回调，URL 非空走外链
type Button struct {
	Label string
	Token string
	URL   string
}

// Response 状态机的应答，由传输层负责渲染
type Response struct {
	Text    string
	Buttons [][]Button
}
