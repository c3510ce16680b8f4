package nif

import "fmt"

// Kind is a record type tag.
type Kind uint16

// Record kinds.
const (
	KindUnknown Kind = iota

	// Scene graph
	KindNiNode
	KindBSFadeNode
	KindRootCollisionNode
	KindNiBSAnimationNode
	KindNiBSParticleNode
	KindAvoidNode
	KindNiBillboardNode
	KindNiSwitchNode
	KindNiTriShape
	KindNiTriStrips
	KindNiPointLight
	KindNiAmbientLight
	KindNiDirectionalLight
	KindNiSpotLight
	KindNiCamera

	// Geometry data
	KindNiTriShapeData
	KindNiTriStripsData
	KindNiSkinInstance
	KindNiSkinData
	KindNiSkinPartition

	// Extra data
	KindNiStringExtraData
	KindNiIntegerExtraData
	KindBSXFlags
	KindNiFloatExtraData
	KindNiBinaryExtraData
	KindNiTextKeyExtraData
	KindBSFurnitureMarker
	KindBSBound

	// Properties
	KindNiMaterialProperty
	KindNiTexturingProperty
	KindNiSourceTexture
	KindNiAlphaProperty
	KindNiVertexColorProperty
	KindNiZBufferProperty
	KindNiSpecularProperty
	KindNiWireframeProperty
	KindNiDitherProperty
	KindNiShadeProperty
	KindNiStencilProperty

	// Controllers
	KindNiKeyframeController
	KindNiTransformController
	KindNiGeomMorpherController
	KindNiAlphaController
	KindNiVisController
	KindNiMultiTargetTransformController
	KindNiControllerManager
	KindNiControllerSequence
	KindNiDefaultAVObjectPalette
	KindNiStringPalette

	// Interpolators and key data
	KindNiTransformInterpolator
	KindNiFloatInterpolator
	KindNiBoolInterpolator
	KindNiPoint3Interpolator
	KindNiKeyframeData
	KindNiTransformData
	KindNiFloatData
	KindNiBoolData
	KindNiPosData
	KindNiColorData
	KindNiMorphData
	KindNiVisData

	// Havok
	KindNiCollisionObject
	KindBhkCollisionObject
	KindBhkSPCollisionObject
	KindBhkRigidBody
	KindBhkRigidBodyT
	KindBhkBoxShape
	KindBhkSphereShape
	KindBhkCapsuleShape
	KindBhkMultiSphereShape
	KindBhkConvexVerticesShape
	KindBhkListShape
	KindBhkTransformShape
	KindBhkConvexTransformShape
	KindBhkMoppBvTreeShape
	KindBhkPackedNiTriStripsShape
	KindHkPackedNiTriStripsData
	KindBhkNiTriStripsShape
	KindBhkBallAndSocketConstraint
	KindBhkHingeConstraint
	KindBhkLimitedHingeConstraint
	KindBhkRagdollConstraint
	KindBhkStiffSpringConstraint

	kindCount
)

type registration struct {
	name string
	new  func() Record
}

var registry [kindCount]registration

var kindByName = make(map[string]Kind, kindCount)

func register(k Kind, name string, fn func() Record) {
	registry[k] = registration{name: name, new: fn}
	kindByName[name] = k
}

// String returns the on-disk type name.
func (k Kind) String() string {
	if k > KindUnknown && k < kindCount && registry[k].name != "" {
		return registry[k].name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// LookupKind resolves an on-disk type name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		if registry[k].new != nil {
			out = append(out, k)
		}
	}
	return out
}

// newRecord instantiates an empty record of kind k at index i.
func newRecord(k Kind, i int) Record {
	rec := registry[k].new()
	b := rec.base()
	b.kind = k
	b.index = i
	return rec
}

func init() {
	node := func() Record { return &Node{} }
	register(KindNiNode, "NiNode", node)
	register(KindBSFadeNode, "BSFadeNode", node)
	register(KindRootCollisionNode, "RootCollisionNode", node)
	register(KindNiBSAnimationNode, "NiBSAnimationNode", node)
	register(KindNiBSParticleNode, "NiBSParticleNode", node)
	register(KindAvoidNode, "AvoidNode", node)
	register(KindNiBillboardNode, "NiBillboardNode", func() Record { return &BillboardNode{} })
	register(KindNiSwitchNode, "NiSwitchNode", func() Record { return &SwitchNode{} })
	register(KindNiTriShape, "NiTriShape", func() Record { return &Geometry{} })
	register(KindNiTriStrips, "NiTriStrips", func() Record { return &Geometry{} })
	register(KindNiPointLight, "NiPointLight", func() Record { return &PointLight{} })
	register(KindNiAmbientLight, "NiAmbientLight", func() Record { return &Light{} })
	register(KindNiDirectionalLight, "NiDirectionalLight", func() Record { return &Light{} })
	register(KindNiSpotLight, "NiSpotLight", func() Record { return &SpotLight{} })
	register(KindNiCamera, "NiCamera", func() Record { return &Camera{} })

	register(KindNiTriShapeData, "NiTriShapeData", func() Record { return &TriShapeData{} })
	register(KindNiTriStripsData, "NiTriStripsData", func() Record { return &TriStripsData{} })
	register(KindNiSkinInstance, "NiSkinInstance", func() Record { return &SkinInstance{} })
	register(KindNiSkinData, "NiSkinData", func() Record { return &SkinData{} })
	register(KindNiSkinPartition, "NiSkinPartition", func() Record { return &SkinPartition{} })

	register(KindNiStringExtraData, "NiStringExtraData", func() Record { return &StringExtraData{} })
	register(KindNiIntegerExtraData, "NiIntegerExtraData", func() Record { return &IntegerExtraData{} })
	register(KindBSXFlags, "BSXFlags", func() Record { return &IntegerExtraData{} })
	register(KindNiFloatExtraData, "NiFloatExtraData", func() Record { return &FloatExtraData{} })
	register(KindNiBinaryExtraData, "NiBinaryExtraData", func() Record { return &BinaryExtraData{} })
	register(KindNiTextKeyExtraData, "NiTextKeyExtraData", func() Record { return &TextKeyExtraData{} })
	register(KindBSFurnitureMarker, "BSFurnitureMarker", func() Record { return &FurnitureMarker{} })
	register(KindBSBound, "BSBound", func() Record { return &BSBound{} })

	register(KindNiMaterialProperty, "NiMaterialProperty", func() Record { return &MaterialProperty{} })
	register(KindNiTexturingProperty, "NiTexturingProperty", func() Record { return &TexturingProperty{} })
	register(KindNiSourceTexture, "NiSourceTexture", func() Record { return &SourceTexture{} })
	register(KindNiAlphaProperty, "NiAlphaProperty", func() Record { return &AlphaProperty{} })
	register(KindNiVertexColorProperty, "NiVertexColorProperty", func() Record { return &VertexColorProperty{} })
	register(KindNiZBufferProperty, "NiZBufferProperty", func() Record { return &ZBufferProperty{} })
	flags := func() Record { return &FlagsProperty{} }
	register(KindNiSpecularProperty, "NiSpecularProperty", flags)
	register(KindNiWireframeProperty, "NiWireframeProperty", flags)
	register(KindNiDitherProperty, "NiDitherProperty", flags)
	register(KindNiShadeProperty, "NiShadeProperty", flags)
	register(KindNiStencilProperty, "NiStencilProperty", func() Record { return &StencilProperty{} })

	register(KindNiKeyframeController, "NiKeyframeController", func() Record { return &KeyframeController{} })
	register(KindNiTransformController, "NiTransformController", func() Record { return &KeyframeController{} })
	register(KindNiGeomMorpherController, "NiGeomMorpherController", func() Record { return &GeomMorpherController{} })
	register(KindNiAlphaController, "NiAlphaController", func() Record { return &FloatController{} })
	register(KindNiVisController, "NiVisController", func() Record { return &FloatController{} })
	register(KindNiMultiTargetTransformController, "NiMultiTargetTransformController", func() Record { return &MultiTargetTransformController{} })
	register(KindNiControllerManager, "NiControllerManager", func() Record { return &ControllerManager{} })
	register(KindNiControllerSequence, "NiControllerSequence", func() Record { return &ControllerSequence{} })
	register(KindNiDefaultAVObjectPalette, "NiDefaultAVObjectPalette", func() Record { return &AVObjectPalette{} })
	register(KindNiStringPalette, "NiStringPalette", func() Record { return &StringPalette{} })

	register(KindNiTransformInterpolator, "NiTransformInterpolator", func() Record { return &TransformInterpolator{} })
	register(KindNiFloatInterpolator, "NiFloatInterpolator", func() Record { return &FloatInterpolator{} })
	register(KindNiBoolInterpolator, "NiBoolInterpolator", func() Record { return &BoolInterpolator{} })
	register(KindNiPoint3Interpolator, "NiPoint3Interpolator", func() Record { return &Point3Interpolator{} })
	register(KindNiKeyframeData, "NiKeyframeData", func() Record { return &KeyframeData{} })
	register(KindNiTransformData, "NiTransformData", func() Record { return &KeyframeData{} })
	register(KindNiFloatData, "NiFloatData", func() Record { return &FloatData{} })
	register(KindNiBoolData, "NiBoolData", func() Record { return &BoolData{} })
	register(KindNiPosData, "NiPosData", func() Record { return &PosData{} })
	register(KindNiColorData, "NiColorData", func() Record { return &ColorData{} })
	register(KindNiMorphData, "NiMorphData", func() Record { return &MorphData{} })
	register(KindNiVisData, "NiVisData", func() Record { return &VisData{} })

	register(KindNiCollisionObject, "NiCollisionObject", func() Record { return &CollisionObject{} })
	register(KindBhkCollisionObject, "bhkCollisionObject", func() Record { return &CollisionObject{} })
	register(KindBhkSPCollisionObject, "bhkSPCollisionObject", func() Record { return &CollisionObject{} })
	register(KindBhkRigidBody, "bhkRigidBody", func() Record { return &RigidBody{} })
	register(KindBhkRigidBodyT, "bhkRigidBodyT", func() Record { return &RigidBody{} })
	register(KindBhkBoxShape, "bhkBoxShape", func() Record { return &BoxShape{} })
	register(KindBhkSphereShape, "bhkSphereShape", func() Record { return &SphereShape{} })
	register(KindBhkCapsuleShape, "bhkCapsuleShape", func() Record { return &CapsuleShape{} })
	register(KindBhkMultiSphereShape, "bhkMultiSphereShape", func() Record { return &MultiSphereShape{} })
	register(KindBhkConvexVerticesShape, "bhkConvexVerticesShape", func() Record { return &ConvexVerticesShape{} })
	register(KindBhkListShape, "bhkListShape", func() Record { return &ListShape{} })
	register(KindBhkTransformShape, "bhkTransformShape", func() Record { return &TransformShape{} })
	register(KindBhkConvexTransformShape, "bhkConvexTransformShape", func() Record { return &TransformShape{} })
	register(KindBhkMoppBvTreeShape, "bhkMoppBvTreeShape", func() Record { return &MoppBvTreeShape{} })
	register(KindBhkPackedNiTriStripsShape, "bhkPackedNiTriStripsShape", func() Record { return &PackedTriStripsShape{} })
	register(KindHkPackedNiTriStripsData, "hkPackedNiTriStripsData", func() Record { return &PackedTriStripsData{} })
	register(KindBhkNiTriStripsShape, "bhkNiTriStripsShape", func() Record { return &TriStripsShape{} })
	register(KindBhkBallAndSocketConstraint, "bhkBallAndSocketConstraint", func() Record { return &Constraint{} })
	register(KindBhkHingeConstraint, "bhkHingeConstraint", func() Record { return &Constraint{} })
	register(KindBhkLimitedHingeConstraint, "bhkLimitedHingeConstraint", func() Record { return &Constraint{} })
	register(KindBhkRagdollConstraint, "bhkRagdollConstraint", func() Record { return &Constraint{} })
	register(KindBhkStiffSpringConstraint, "bhkStiffSpringConstraint", func() Record { return &Constraint{} })
}
