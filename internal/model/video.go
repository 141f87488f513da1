package model

// Video 唯一的实体：id由客户端指定，不自增；name/views/likes都不能为空
type Video struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Name  string `gorm:"size:100;not null"`
	Views int64  `gorm:"not null"`
	Likes int64  `gorm:"not null"`
}

func (Video) TableName() string {
	return "videos"
}

// VideoPatch 是经过校验的部分更新，nil表示“不修改”
type VideoPatch struct {
	Name  *string
	Views *int64
	Likes *int64
}

// Empty 没有任何需要写入的字段
func (p VideoPatch) Empty() bool {
	return p.Name == nil && p.Views == nil && p.Likes == nil
}

// Apply 把非nil字段覆盖到video上，返回是否有字段被写入
func (p VideoPatch) Apply(video *Video) bool {
	if p.Name != nil {
		video.Name = *p.Name
	}
	if p.Views != nil {
		video.Views = *p.Views
	}
	if p.Likes != nil {
		video.Likes = *p.Likes
	}
	return !p.Empty()
}

// Columns 返回需要UPDATE的列，key是数据库列名
func (p VideoPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Views != nil {
		cols["views"] = *p.Views
	}
	if p.Likes != nil {
		cols["likes"] = *p.Likes
	}
	return cols
}
