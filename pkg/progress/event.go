package progress

// Action 单个工作单元的处理结果
type Action string

const (
	ActionMoved           Action = "moved"
	ActionUnchanged       Action = "unchanged"
	ActionExpanded        Action = "expanded"
	ActionExpansionFailed Action = "expansion_failed"
	ActionFailed          Action = "failed"
	ActionPruned          Action = "pruned"
)

// Event 整理过程中产生的事件
type Event struct {
	Action      Action
	Source      string
	Destination string
	Category    string
	Size        int64
	// ArchiveRemoved 压缩包原文件是否已删除
	ArchiveRemoved bool
	Err            error
}

// Listener 接收事件，实现必须可以被并发调用
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc 函数适配器
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

type multiListener []Listener

func (m multiListener) OnEvent(e Event) {
	for _, l := range m {
		l.OnEvent(e)
	}
}

// Multi 将事件依次分发给多个监听器，忽略 nil
func Multi(listeners ...Listener) Listener {
	var out multiListener
	for _, l := range listeners {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}
