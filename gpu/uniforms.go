package gpu

import "github.com/go-gl/mathgl/mgl32"

// Uniforms maps uniform names to values. Supported value types are
// float32, int32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4 and mgl32.Mat4.
// Reading an unset uniform yields the zero value. GL programs keep
// uniform values between draws, so a pass must set every uniform its
// program declares.
type Uniforms map[string]any

// Float returns the named float uniform.
func (u Uniforms) Float(name string) float32 {
	v, _ := u[name].(float32)
	return v
}

// Int returns the named int uniform.
func (u Uniforms) Int(name string) int32 {
	v, _ := u[name].(int32)
	return v
}

// Vec2 returns the named vec2 uniform.
func (u Uniforms) Vec2(name string) mgl32.Vec2 {
	v, _ := u[name].(mgl32.Vec2)
	return v
}

// Vec3 returns the named vec3 uniform.
func (u Uniforms) Vec3(name string) mgl32.Vec3 {
	v, _ := u[name].(mgl32.Vec3)
	return v
}

// Vec4 returns the named vec4 uniform.
func (u Uniforms) Vec4(name string) mgl32.Vec4 {
	v, _ := u[name].(mgl32.Vec4)
	return v
}

// Mat4 returns the named mat4 uniform.
func (u Uniforms) Mat4(name string) mgl32.Mat4 {
	v, _ := u[name].(mgl32.Mat4)
	return v
}
