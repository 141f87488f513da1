package dto

import "Video_API/internal/model"

// VideoResponse 固定的对外结构，字段顺序：id, name, views, likes
type VideoResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Views int64  `json:"views"`
	Likes int64  `json:"likes"`
}

// ToVideoResponse 把DB模型转换为API响应模型，三个操作的成功响应都用它
func ToVideoResponse(video *model.Video) VideoResponse {
	return VideoResponse{
		ID:    video.ID,
		Name:  video.Name,
		Views: video.Views,
		Likes: video.Likes,
	}
}

// PutVideoRequest 创建视频的参数，三个字段都必填。
// 用指针区分“没传”和“传了零值”：views=0是合法的。
// json来自请求体，form来自表单或查询参数。
type PutVideoRequest struct {
	Name  *string `json:"name" form:"name" binding:"required,min=1,max=100"`
	Views *int64  `json:"views" form:"views" binding:"required"`
	Likes *int64  `json:"likes" form:"likes" binding:"required"`
}

// ToVideo 用路径里的videoID和已校验的参数构建记录
func (r *PutVideoRequest) ToVideo(videoID int64) *model.Video {
	return &model.Video{
		ID:    videoID,
		Name:  *r.Name,
		Views: *r.Views,
		Likes: *r.Likes,
	}
}

// PatchVideoRequest 部分更新的参数，都可以不传
type PatchVideoRequest struct {
	Name  *string `json:"name" form:"name" binding:"omitempty,max=100"`
	Views *int64  `json:"views" form:"views"`
	Likes *int64  `json:"likes" form:"likes"`
}

// ToPatch 只保留“真值”字段：空字符串和0都当作没传，所以不能通过PATCH把views/likes改成0
func (r *PatchVideoRequest) ToPatch() model.VideoPatch {
	var patch model.VideoPatch
	if r.Name != nil && *r.Name != "" {
		patch.Name = r.Name
	}
	if r.Views != nil && *r.Views != 0 {
		patch.Views = r.Views
	}
	if r.Likes != nil && *r.Likes != 0 {
		patch.Likes = r.Likes
	}
	return patch
}
