package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// 每个字段校验失败时返回给客户端的说明
var argHelp = map[string]string{
	"name":  "Name of the video is required",
	"views": "Views of the video",
	"likes": "Likes on the video",
}

// 整数字段，表单绑定出错时用来定位是哪个字段
var intArgs = []string{"views", "likes"}

// bindArgs 从JSON请求体或表单/查询参数中绑定req并校验。
// 失败时已经写好400响应，调用方直接return即可。
func bindArgs(c *gin.Context, req interface{}) bool {
	err := c.ShouldBind(req)
	if err == nil {
		return true
	}
	if fields := argErrors(c, err); len(fields) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ArgErrorResponse{Message: fields})
		return false
	}
	sendErrorResponse(c, http.StatusBadRequest, msgUndecodableBody)
	return false
}

// argErrors 把绑定错误转换成 字段名 -> 说明；无法归到某个字段时返回nil
func argErrors(c *gin.Context, err error) map[string]string {
	fields := make(map[string]string)

	var validationErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			field := strings.ToLower(fe.Field())
			fields[field] = fieldHelp(field, fe.Tag())
		}
	case errors.As(err, &typeErr):
		// Field是JSON路径，顶层字段就是字段名本身
		if help, ok := argHelp[typeErr.Field]; ok {
			fields[typeErr.Field] = help
		}
	case errors.As(err, &numErr):
		// 表单绑定的错误不带字段名，按提交的值找出解析失败的字段
		for _, field := range intArgs {
			value, ok := formValue(c, field)
			if !ok {
				continue
			}
			if _, perr := strconv.ParseInt(value, 10, 64); perr != nil {
				fields[field] = argHelp[field]
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldHelp(field, tag string) string {
	if field == "name" {
		switch tag {
		case "min":
			return "Name of the video cannot be empty"
		case "max":
			return "Name of the video must be at most 100 characters"
		}
	}
	return argHelp[field]
}

func formValue(c *gin.Context, field string) (string, bool) {
	if value, ok := c.GetPostForm(field); ok {
		return value, true
	}
	return c.GetQuery(field)
}
