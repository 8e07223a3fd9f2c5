package processor

import (
	"errors"
	"fmt"
)

// Input 页面上的一个下拉框
type Input string

const (
	InputRegion    Input = "region"
	InputCommodity Input = "commodity"
)

var ErrNoSnapshot = errors.New("no data snapshot loaded")

// ParseInput 解析前端传来的输入名
func ParseInput(s string) (Input, error) {
	switch Input(s) {
	case InputRegion, InputCommodity:
		return Input(s), nil
	}
	return "", fmt.Errorf("unknown input %q", s)
}

// BuildFunc 纯函数: 相同的快照和选择得到相同的图表
type BuildFunc func(t *Table, sel Selection) ChartSpec

// Source 提供当前快照, *Store 实现了该接口
type Source interface {
	Get() *Table
}

type binding struct {
	id     string
	inputs []Input
	build  BuildFunc
}

// Binder 输入 -> 视图的分发表.
// 选择变化时只重新计算依赖该输入的视图.
type Binder struct {
	source   Source
	bindings []binding
}

func NewBinder(source Source) *Binder {
	return &Binder{source: source}
}

// NewDashboard 注册四个图表及其依赖的输入
func NewDashboard(source Source) *Binder {
	b := NewBinder(source)
	b.Bind(ViewCommodityProduction, BuildCommodityProduction, InputRegion)
	b.Bind(ViewRegionShare, BuildRegionShare, InputCommodity)
	b.Bind(ViewSubRegionBar, BuildSubRegionBar, InputCommodity, InputRegion)
	b.Bind(ViewSubRegionShare, BuildSubRegionShare, InputCommodity, InputRegion)
	return b
}

// Bind 注册视图, 同一 id 再次注册时替换原来的绑定
func (b *Binder) Bind(id string, build BuildFunc, inputs ...Input) {
	bd := binding{id: id, inputs: append([]Input(nil), inputs...), build: build}
	for i := range b.bindings {
		if b.bindings[i].id == id {
			b.bindings[i] = bd
			return
		}
	}
	b.bindings = append(b.bindings, bd)
}

// Views 按注册顺序返回视图 id
func (b *Binder) Views() []string {
	ids := make([]string, len(b.bindings))
	for i, bd := range b.bindings {
		ids[i] = bd.id
	}
	return ids
}

// Render 计算全部视图
func (b *Binder) Render(sel Selection) ([]ChartSpec, error) {
	return b.dispatch(sel, func(binding) bool { return true })
}

// Update 只计算依赖 changed 中任一输入的视图
func (b *Binder) Update(sel Selection, changed ...Input) ([]ChartSpec, error) {
	return b.dispatch(sel, func(bd binding) bool {
		for _, in := range bd.inputs {
			for _, c := range changed {
				if in == c {
					return true
				}
			}
		}
		return false
	})
}

// Build 计算单个视图
func (b *Binder) Build(id string, sel Selection) (ChartSpec, error) {
	specs, err := b.dispatch(sel, func(bd binding) bool { return bd.id == id })
	if err != nil {
		return ChartSpec{}, err
	}
	if len(specs) == 0 {
		return ChartSpec{}, fmt.Errorf("unknown view %q", id)
	}
	return specs[0], nil
}

// Changed 比较两次选择, 返回发生变化的输入
func Changed(prev, next Selection) []Input {
	var out []Input
	if prev.Region != next.Region {
		out = append(out, InputRegion)
	}
	if prev.Commodity != next.Commodity {
		out = append(out, InputCommodity)
	}
	return out
}

// dispatch 整个调用只取一次快照, 所有视图看到同一份数据
func (b *Binder) dispatch(sel Selection, want func(binding) bool) ([]ChartSpec, error) {
	t := b.source.Get()
	if t == nil {
		return nil, ErrNoSnapshot
	}
	sel = sel.Normalize(t.all)

	specs := make([]ChartSpec, 0, len(b.bindings))
	for _, bd := range b.bindings {
		if !want(bd) {
			continue
		}
		spec := bd.build(t, sel)
		spec.ID = bd.id
		specs = append(specs, spec)
	}
	return specs, nil
}
